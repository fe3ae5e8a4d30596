// Package supervision identifies a supervision session from its directory and
// finds the matching booking row in the portal's session table.
//
// Invariants:
// - An Identity is derived once from the directory path and passed by value.
// - Match is pure: it sees only extracted BookingRow values, never a browser.
// - The first row satisfying both the subject and session predicates wins;
//   further satisfying rows are counted so callers can report ambiguity.
//
// Usage:
//
//	id, _ := supervision.Resolve("/home/me/Thermodynamics/supo3")
//	rows, _ := supervision.ParseBookingTable(html, supervision.DefaultTableLayout())
//	res := supervision.Match(rows, id)
//	_ = res.Href
package supervision
