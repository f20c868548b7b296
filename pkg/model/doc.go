// Package model defines the declarative form vocabulary shared by every other
// package: field descriptors, field types with their controlled-zero values,
// and rule sets keyed by rule kind (required, pattern, minLength, maxLength,
// min, max, validate). A field's Name is the join key between its bound value,
// its error, and the submission payload, so it must not change while a form is
// mounted. Rule messages are resolved through the localisation function when
// the rule is built, never at validation time.
package model
