package validation

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-entityform/pkg/model"
)

var (
	tagValidatorOnce sync.Once
	tagValidator     *validator.Validate
)

func tagEngine() *validator.Validate {
	tagValidatorOnce.Do(func() {
		tagValidator = validator.New()
	})
	return tagValidator
}

// Tag delegates to a validator tag expression (for example "url", "uuid4"
// or "numeric,gte=1"). Empty values pass.
func (b *Builder) Tag(label, tag string) model.RuleSet {
	message := b.msg("validation.tag", "{label} is not a valid {tag}", map[string]any{"label": label, "tag": tag})
	return b.Check(func(value any, _ model.Values) string {
		if IsEmpty(value) {
			return ""
		}
		if err := tagEngine().Var(value, tag); err != nil {
			return message
		}
		return ""
	})
}
