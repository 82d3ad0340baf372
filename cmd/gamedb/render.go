package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/nqd/flat"
	"github.com/tidwall/gjson"

	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/autom8ter/gamedb/util"
)

type renderOpts struct {
	path     string
	output   string
	template string
}

// render writes a document, or the part of it selected by opts.path, in the requested format
func render(w io.Writer, doc model.Document, opts renderOpts) error {
	bits, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.Internal, "failed to encode document")
	}
	if opts.path != "" {
		result := gjson.GetBytes(bits, opts.path)
		if !result.Exists() {
			return errors.New(errors.NotFound, "path %s does not exist", opts.path)
		}
		bits = []byte(result.Raw)
	}
	var data any
	if err := json.Unmarshal(bits, &data); err != nil {
		return errors.Wrap(err, errors.Internal, "failed to decode document")
	}
	if opts.template != "" {
		tmpl, err := template.New("get").Funcs(sprig.TxtFuncMap()).Parse(opts.template)
		if err != nil {
			return errors.Wrap(err, errors.Validation, "invalid template")
		}
		if err := tmpl.Execute(w, data); err != nil {
			return errors.Wrap(err, errors.Validation, "failed to render template")
		}
		_, err = fmt.Fprintln(w)
		return err
	}
	switch opts.output {
	case "", "json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, bits, "", "  "); err != nil {
			return errors.Wrap(err, errors.Internal, "failed to indent json")
		}
		_, err = fmt.Fprintln(w, buf.String())
		return err
	case "yaml":
		out, err := util.JSONToYAML(bits)
		if err != nil {
			return errors.Wrap(err, errors.Internal, "failed to convert json to yaml")
		}
		_, err = w.Write(out)
		return err
	case "flat":
		fields, ok := data.(map[string]any)
		if !ok {
			_, err = fmt.Fprintln(w, string(bits))
			return err
		}
		flattened, err := flat.Flatten(fields, nil)
		if err != nil {
			return errors.Wrap(err, errors.Internal, "failed to flatten document")
		}
		keys := make([]string, 0, len(flattened))
		for k := range flattened {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := fmt.Fprintf(w, "%s=%s\n", k, util.JSONString(flattened[k])); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.New(errors.Validation, "unsupported output format %q", opts.output)
	}
}
