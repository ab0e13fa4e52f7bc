// Package master turns a fetched opportunity table into a scoring master.
//
// The fetch step writes either raw API columns or curated summary columns.
// Template maps both onto the master header, adds the blank scoring columns an
// analyst fills in, and puts the familiar columns first.
package master
