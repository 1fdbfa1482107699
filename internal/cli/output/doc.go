// Package output renders tuamail-cli results as a table, JSON or YAML.
//
// Result types that know their own tabular layout implement Tabular; other
// values are laid out by reflection (slices become one row per element,
// structs and maps become key/value tables).
package output
