// Package models contains the GORM persistence models of the document store.
// Domain documents carry no ORM tags; the store maps between the two.
//
// Every document kind has its own header table plus a line item table keyed
// by document id. document_sequences holds the per kind and year counters
// used for numbering.
package models
