package pideck

import (
	"io"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// ParseJSONConfig parses a JSON configuration from a reader. The document is
// either an array of key records or an object holding the top-level settings
// and a "keys" array. A key record is an object, or an array of
// single-field objects as in the YAML keypad files.
func ParseJSONConfig(r io.Reader) (*Config, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read JSON config")
	}
	if !gjson.ValidBytes(b) {
		return nil, errors.New("failed to decode JSON config: malformed JSON")
	}

	root := gjson.ParseBytes(b)
	keys := root

	config := DefaultConfig()
	if root.IsObject() {
		if err := config.applySettings(jsonSettings(root)); err != nil {
			return nil, err
		}
		keys = root.Get("keys")
	}

	if keys.Exists() && !keys.IsArray() {
		return nil, &ConfigError{Field: "keys", Err: errors.New("must be an array of key records")}
	}

	for i, rec := range keys.Array() {
		f, err := jsonKeyFields(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "key record %d", i)
		}
		k, err := keyFromFields(f)
		if err != nil {
			return nil, errors.Wrapf(err, "key record %d", i)
		}
		config.Keys = append(config.Keys, k)
	}

	return config.finishRecords()
}

func jsonSettings(root gjson.Result) recordFields {
	f := make(recordFields)
	root.ForEach(func(k, v gjson.Result) bool {
		switch {
		case k.String() == "rpi" && v.IsObject():
			v.ForEach(func(rk, rv gjson.Result) bool {
				f["rpi."+rk.String()] = rv.String()
				return true
			})
		case !v.IsObject() && !v.IsArray():
			f[k.String()] = v.String()
		}
		return true
	})
	return f
}

func jsonKeyFields(rec gjson.Result) (recordFields, error) {
	f := make(recordFields)
	collect := func(obj gjson.Result) {
		obj.ForEach(func(k, v gjson.Result) bool {
			f[k.String()] = v.String()
			return true
		})
	}

	switch {
	case rec.IsObject():
		collect(rec)
	case rec.IsArray():
		for _, part := range rec.Array() {
			if !part.IsObject() {
				return nil, errors.New("list records may only hold objects")
			}
			collect(part)
		}
	default:
		return nil, errors.New("must be an object")
	}

	return f, nil
}
