// Package i18n provides the localisation function used for every user-facing
// string: rule messages, notifications, field labels and form titles.
//
// Catalogs are YAML files laid out as locales/<locale>/<namespace>.yaml and are
// registered with golang.org/x/text so requests for regional variants (for
// example "ar-YE") resolve to the closest shipped locale. Lookups fall back to
// the base locale and finally to the English default supplied by the caller.
package i18n
