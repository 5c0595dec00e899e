// Command gen-foreach writes the fixed-arity ForEachEntityN and QueryN
// helpers of package ecs. Go has no variadic type parameters, so the family
// is generated up to -max components.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"
)

const source = `// Code generated by gen-foreach -max {{.Max}}; DO NOT EDIT.

package ecs
{{range .Arities}}
// ForEachEntity{{.N}} calls fn for every entity matching the System's
// signature, passing its {{.Names}} component{{if gt .N 1}}s{{end}}. Every type must have been
// declared with DeclareComponentType. Every row is type-checked before fn is
// first called, so on error fn has not run. Components must not be retained
// after fn returns.
func ForEachEntity{{.N}}[{{.TypeParams}} Component](b *Base, fn func(Entity, {{.TypeArgs}})) error {
	b.signature.Freeze()
{{- range .Indices}}
	i{{.}}, err := denseIndex[T{{.}}](b.registry, b.signature)
	if err != nil {
		return err
	}
{{- end}}

	rows, err := b.ownRows()
	if err != nil {
		return err
	}
	for _, row := range rows {
{{- range .Indices}}
		if _, err := component[T{{.}}](row, i{{.}}); err != nil {
			return err
		}
{{- end}}
	}
	for _, row := range rows {
		fn(row.Entity, {{.Values}})
	}
	return nil
}

// Query{{.N}} returns every entity that has {{.Names}}, regardless of the
// System's own signature.
func Query{{.N}}[{{.TypeParams}} Component](b *Base) (*QueryResult, error) {
	return b.QueryOf({{.Keys}})
}
{{end}}`

type arity struct {
	N          int
	Indices    []int
	TypeParams string
	TypeArgs   string
	Values     string
	Keys       string
	Names      string
}

func newArity(n int) arity {
	a := arity{N: n}
	params := make([]string, n)
	values := make([]string, n)
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		a.Indices = append(a.Indices, i)
		params[i] = fmt.Sprintf("T%d", i)
		values[i] = fmt.Sprintf("row.Components[i%d].(T%d)", i, i)
		keys[i] = fmt.Sprintf("KeyOf[T%d]()", i)
	}
	a.TypeParams = strings.Join(params, ", ")
	a.TypeArgs = a.TypeParams
	a.Values = strings.Join(values, ", ")
	a.Keys = strings.Join(keys, ", ")
	a.Names = joinNames(params)
	return a
}

func joinNames(names []string) string {
	switch len(names) {
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

// generate renders the helpers for arities 1 through maxArity and formats
// them as filename.
func generate(maxArity int, filename string) ([]byte, error) {
	data := struct {
		Max     int
		Arities []arity
	}{Max: maxArity}
	for n := 1; n <= maxArity; n++ {
		data.Arities = append(data.Arities, newArity(n))
	}

	tmpl := template.Must(template.New("foreach").Parse(source))
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	formatted, err := imports.Process(filename, buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", filename, err)
	}
	return formatted, nil
}

func main() {
	maxArity := flag.Int("max", 5, "The largest number of components supported.")
	out := flag.String("o", "foreach_generated.go", "The output file.")
	flag.Parse()

	if *maxArity < 1 {
		log.Fatalf("-max must be at least 1, got %d", *maxArity)
	}

	formatted, err := generate(*maxArity, *out)
	if err != nil {
		log.Fatal(err)
	}

	if err := os.WriteFile(*out, formatted, 0o644); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
}
