// schema emits a JSON Schema describing the wire protocol, for frontend
// authors and contract checks.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"

	"coinrush/internal/protocol"
)

func main() {
	out := flag.String("out", "docs/protocol.schema.json", "where to write the schema")
	flag.Parse()

	data, err := renderSchema()
	if err != nil {
		log.Fatalf("render protocol schema: %v", err)
	}
	if err := writeAtomic(*out, data); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", *out, len(data))
}

func renderSchema() ([]byte, error) {
	schema, err := buildSchema()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// writeAtomic stages the file next to its destination and renames it into
// place so a killed run never leaves a truncated schema behind.
func writeAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func buildSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}

	kinds := []struct {
		title string
		typ   reflect.Type
	}{
		{"Join", reflect.TypeOf(protocol.JoinMessage{})},
		{"Welcome", reflect.TypeOf(protocol.WelcomeMessage{})},
		{"Input", reflect.TypeOf(protocol.InputMessage{})},
		{"State", reflect.TypeOf(protocol.StateMessage{})},
	}

	root := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Coinrush Wire Protocol",
		Description: "Newline-delimited messages exchanged between client and server.",
	}
	for _, kind := range kinds {
		s := reflector.ReflectFromType(kind.typ)
		if s == nil {
			return nil, fmt.Errorf("failed to reflect %s schema", kind.title)
		}
		s.Version = ""
		s.Title = kind.title
		root.OneOf = append(root.OneOf, s)
	}
	return root, nil
}
