// Package glossary loads the fixed game terminology used during translation.
// Terms are kept in longest-match-first order so multi-word terms are never
// shadowed by a shorter term they contain.
package glossary
