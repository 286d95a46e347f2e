// Package aggregates implements the skill mastery aggregate on GORM.
//
// Every write to a skill_mastery row goes through this package: one transaction
// per attempt, a version-guarded update, and the interaction or audit row in the
// same commit. Conflicts and transient store errors are retried with backoff.
package aggregates
