// Package aggregates defines the skill mastery write contract and the coded
// errors every service maps to transport status.
package aggregates
