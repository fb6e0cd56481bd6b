// Package services defines the sentinel error taxonomy shared by every
// pipeline stage and the helpers that tag errors with component context.
package services
