// Package validation builds declarative rule sets for labeled fields and
// evaluates them against a form's value map.
//
// Builders resolve every message through the supplied localisation function
// at construction time, so a RuleSet is a pure value that can be evaluated
// repeatedly. Cross-field checks receive the full value map and pass when the
// field they compare against is still empty: absence of data is never an
// error, only present-but-invalid data is.
package validation
