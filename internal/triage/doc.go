// Package triage holds the postpartum danger-sign rules and the records the
// dashboard works with: mothers under follow-up and the community health
// workers who visit them. Assessment is pure; persistence lives behind Store
// with in-memory and PostgreSQL implementations.
package triage
