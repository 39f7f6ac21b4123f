// Package processor contains the run wiring of cardtrans. It turns the
// command-line flags into a glossary, a cache, a translator and a rate gate,
// runs the translation pipeline over the extracted packs, exports the
// results and prints the end-of-run summary. It serves as the main
// coordinator between all other components.
package processor
