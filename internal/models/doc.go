// Package models lists the models a translation provider offers and groups
// them by whether they can translate card text.
package models
