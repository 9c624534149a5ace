// Package source provides experiment definition sources.
//
// A definition source supplies the static (configuration-time) shape of
// experiments: alternatives, goals, metric and metadata. The catalog falls
// back to a static definition when ABTest is called without alternatives.
//
// Available sources:
//   - Static: Fixed map of definitions, replaceable at runtime with Update
package source
