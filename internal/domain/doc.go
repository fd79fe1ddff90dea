// Package domain defines the core business entities of the grading
// pipeline: answer sheets, grading results, and per-owner analytics
// snapshots, along with their validation rules and status transitions.
package domain
