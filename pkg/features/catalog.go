package features

import (
	"github.com/goliatone/go-entityform/pkg/entity"
	"github.com/goliatone/go-entityform/pkg/query"
)

// Feature is the declarative configuration of one managed entity.
type Feature struct {
	Entity string
	// Path is the REST collection path. It may contain the {parent}
	// placeholder, in which case ParentField names the scoping field.
	Path        string
	ParentField string
	Key         query.Key
	// Reads lists the entities whose data this feature's views display.
	Reads         []string
	Shape         entity.Shape
	Label         func(item any) string
	FallbackLabel string
	// Unique fields are expected to be unique server-side.
	Unique []string
	// Columns are shown by list views.
	Columns []string
	// Lookups fill a field's options from another entity's list, keyed by
	// field name.
	Lookups map[string]string
}

// Scoped reports whether the feature lives under a parent.
func (f Feature) Scoped() bool {
	return f.ParentField != ""
}

var personShape = entity.Shape{
	"id":       {"id", "_id"},
	"fullName": {"fullName", "name", "user.fullName"},
	"email":    {"email", "user.email"},
	"phone":    {"phone", "phoneNumber", "user.phone"},
}

// Defaults returns the built-in features.
func Defaults() []Feature {
	return []Feature{
		{
			Entity:        "admin",
			Path:          "/admins",
			Key:           query.Key{"admins"},
			Shape:         personShape,
			Label:         entity.LabelFrom("fullName", "email"),
			FallbackLabel: "admin",
			Unique:        []string{"email"},
			Columns:       []string{"fullName", "email", "phone"},
		},
		{
			Entity: "manager",
			Path:   "/managers",
			Key:    query.Key{"managers"},
			Shape: entity.Shape{
				"id":       {"id", "_id"},
				"fullName": {"fullName", "name", "user.fullName"},
				"email":    {"email", "user.email"},
				"phone":    {"phone", "phoneNumber", "user.phone"},
				"active":   {"active", "isActive"},
			},
			Label:         entity.LabelFrom("fullName", "email"),
			FallbackLabel: "manager",
			Unique:        []string{"email"},
			Columns:       []string{"fullName", "email", "active"},
		},
		{
			Entity: "student",
			Path:   "/students",
			Key:    query.Key{"students"},
			Reads:  []string{"grade"},
			Shape: entity.Shape{
				"id":       {"id", "_id"},
				"fullName": {"fullName", "name", "user.fullName"},
				"email":    {"email", "user.email"},
				"phone":    {"phone", "phoneNumber", "user.phone"},
				"gradeId":  {"gradeId", "grade.id"},
			},
			Label:         entity.LabelFrom("fullName", "email"),
			FallbackLabel: "student",
			Lookups:       map[string]string{"gradeId": "grade"},
			Unique:        []string{"email"},
			Columns:       []string{"fullName", "email", "gradeId"},
		},
		{
			Entity:        "grade",
			Path:          "/grades",
			Key:           query.Key{"grades"},
			Label:         entity.LabelFrom("name"),
			FallbackLabel: "grade",
			Columns:       []string{"name", "level"},
		},
		{
			Entity: "subject",
			Path:   "/subjects",
			Key:    query.Key{"subjects"},
			Reads:  []string{"grade"},
			Shape: entity.Shape{
				"id":          {"id", "_id"},
				"name":        {"name", "title"},
				"gradeId":     {"gradeId", "grade.id"},
				"description": {"description"},
			},
			Label:         entity.LabelFrom("name", "title"),
			FallbackLabel: "subject",
			Lookups:       map[string]string{"gradeId": "grade"},
			Columns:       []string{"name", "gradeId"},
		},
		{
			Entity:        "unit",
			Path:          "/units",
			Key:           query.Key{"units"},
			Reads:         []string{"subject"},
			Label:         entity.LabelFrom("title", "name"),
			FallbackLabel: "unit",
			Lookups:       map[string]string{"subjectId": "subject"},
			Columns:       []string{"title", "subjectId", "order"},
		},
		{
			Entity:        "lesson",
			Path:          "/units/{parent}/lessons",
			ParentField:   "unitId",
			Key:           query.Key{"lessons"},
			Reads:         []string{"unit"},
			Label:         entity.LabelFrom("title"),
			FallbackLabel: "lesson",
			Columns:       []string{"title", "order", "videoUrl"},
		},
		{
			Entity:        "competition",
			Path:          "/competitions",
			Key:           query.Key{"competitions"},
			Label:         entity.LabelFrom("title"),
			FallbackLabel: "competition",
			Columns:       []string{"title", "startDate", "endDate", "reward"},
		},
		{
			Entity:        "exam",
			Path:          "/exams",
			Key:           query.Key{"exams"},
			Reads:         []string{"subject"},
			Label:         entity.JoinLabel("title", "startTime"),
			FallbackLabel: "exam",
			Lookups:       map[string]string{"subjectId": "subject"},
			Columns:       []string{"title", "subjectId", "startTime", "endTime"},
		},
	}
}
