package ext

import (
	"fmt"

	"docgraph/internal/model"
)

// LoadOptional registers the bundled idiom recognizers: the dataclasses and
// attrs brains. Gated by the load_optional_extensions configuration field.
func LoadOptional(f *Factory) error {
	kinds := []model.Kind{model.KindClass, model.KindVariable}
	for _, trait := range []Trait{dataclassTrait{}, attrsTrait{}} {
		for _, kind := range kinds {
			if err := f.Register(kind, trait); err != nil {
				return fmt.Errorf("loading optional extensions: %w", err)
			}
		}
	}
	return nil
}
