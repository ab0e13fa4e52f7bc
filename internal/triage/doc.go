// Package triage scores master records and sorts them into Clean, Dirty and
// OutOfScope partitions.
//
// A row is Dirty when any fatal filter fires: a deadline strictly before the run
// date, a match percentage at or above the threshold, or a blank grant name,
// sponsor or link. Rows that survive with zero relevance are OutOfScope; the
// remainder are Clean and ranked by score, ties keeping input order.
//
// The score is a govaluate expression over Relevance, EQOREFit, EaseOfUse and
// Match. The default is:
//
//	Relevance * EQOREFit * (EaseOfUse / 5)
package triage
