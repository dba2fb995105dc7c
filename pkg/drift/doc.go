// Package drift turns a table of heliocentric position samples into the
// baseline (GR) and corrected (MQUDE) drift series, their residual, and a
// linear trend of that residual that can be projected to any date.
//
// Every function is a pure transform over its arguments; nothing is cached
// between calls and input tables are never modified.
package drift
