package util

import (
	"encoding/json"

	"github.com/autom8ter/gamedb/errors"
	"github.com/ghodss/yaml"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate = validator.New()

// ValidateStruct validates a struct based on its `validate` tags
func ValidateStruct(val any) error {
	if err := validate.Struct(val); err != nil {
		return errors.Wrap(err, errors.Validation, "")
	}
	return nil
}

// Decode decodes the input into the output based on json tags
func Decode(input any, output any) error {
	config := &mapstructure.DecoderConfig{
		WeaklyTypedInput:     true,
		Result:               output,
		TagName:              "json",
		IgnoreUntaggedFields: true,
	}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// JSONString returns a json string of the input
func JSONString(input any) string {
	bits, _ := json.Marshal(input)
	return string(bits)
}

// JSONToYAML converts json to yaml
func JSONToYAML(jsonContent []byte) ([]byte, error) {
	return yaml.JSONToYAML(jsonContent)
}

// YAMLToJSON converts yaml to json. JSON input is returned as is.
func YAMLToJSON(yamlContent []byte) ([]byte, error) {
	if json.Valid(yamlContent) {
		return yamlContent, nil
	}
	return yaml.YAMLToJSON(yamlContent)
}
