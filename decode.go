package confstack

import (
	"github.com/mitchellh/mapstructure"
)

// Decode binds the merged configuration onto out, which must be a
// pointer to a struct or a map. Fields match by their `conf` tag or
// by case-insensitive name. Input is coerced weakly, so string values
// read from untyped sources fill int, bool and float fields, duration
// strings such as "1m30s" fill time.Duration fields, and
// comma-separated strings fill slices.
func (c *StackedConfig) Decode(out any) error {
	data, err := c.Dump()
	if err != nil {
		return err
	}
	return decode(data, out)
}

// Decode binds the source's tree onto out the same way
// StackedConfig.Decode does.
func (s *Source) Decode(out any) error {
	data, err := s.Dump()
	if err != nil {
		return err
	}
	return decode(data, out)
}

func decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "conf",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}
