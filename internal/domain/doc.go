// Package domain defines core data models and interfaces shared across the
// forwarder. It contains plain types (wire/state), contracts (interfaces) and
// sentinel errors only.
package domain
