// Package present renders the ranked shortlist as presentation artifacts.
//
// Deck writes a PowerPoint file with a title slide and one slide per
// opportunity. OnePager writes a short PDF summary. Calendar writes an
// iCalendar file with an all-day event for each deadline. DryRun prints what
// any of them would contain. They all implement Renderer, so the pipeline can
// swap them without knowing the format.
package present
