// Package providers holds the per-provider payload decoders and reward
// extractors. Extractors are pure: raw payload in, normalized reward intent
// out, with persistence left to the reward recorder.
package providers

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// DecodeAndValidate unmarshals a raw provider payload and checks its
// validate tags. Unknown fields are tolerated; provider payloads carry far
// more than the extractors read.
func DecodeAndValidate(raw []byte, dest any) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := validate.Struct(dest); err != nil {
		return fmt.Errorf("validate payload: %w", err)
	}
	return nil
}
