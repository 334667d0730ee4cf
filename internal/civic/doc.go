// Package civic provides the business boundary for CivicLens report
// management. It defines the Service (report lifecycle, triage dispatch,
// priority derivation), the Store interfaces (persistence), and the domain
// models.
package civic
