// seed_catalogs genera el script SQL del catálogo CAT-019 (actividades económicas)
// a partir del XML publicado por el MH.
//
// Uso: go run ./cmd/seed_catalogs [ruta/actividades.xml]
// Por defecto busca actividades.xml en el directorio actual.
// Escribe: internal/infrastructure/postgres/migrations/002_seed_activities.sql
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	pkgdte "github.com/jhoicas/facturacion-dte/pkg/dte"
)

type activity struct {
	Code        string
	Description string
}

func main() {
	xmlPath := "actividades.xml"
	if len(os.Args) > 1 {
		xmlPath = os.Args[1]
	}
	f, err := os.Open(xmlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir XML: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	activities, err := parseActivities(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer catálogo: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "migrations", "002_seed_activities.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := writeSQL(out, activities); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d actividades\n", outPath, len(activities))
}

// parseActivities lee elementos <actividad codigo="..." descripcion="..."/> en cualquier
// nivel del documento. También acepta código y descripción como elementos hijos.
// Los códigos repetidos conservan la última descripción.
func parseActivities(r io.Reader) ([]activity, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") || strings.EqualFold(charset, "latin1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return input, nil
	}
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parsear XML: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("XML sin elemento raíz")
	}

	byCode := make(map[string]string)
	for _, el := range doc.FindElements("//actividad") {
		code := strings.TrimSpace(el.SelectAttrValue("codigo", childText(el, "codigo")))
		desc := pkgdte.Clean(el.SelectAttrValue("descripcion", childText(el, "descripcion")))
		if code == "" || desc == "" {
			continue
		}
		byCode[code] = desc
	}
	if len(byCode) == 0 {
		return nil, fmt.Errorf("el XML no contiene actividades")
	}

	list := make([]activity, 0, len(byCode))
	for code, desc := range byCode {
		list = append(list, activity{Code: code, Description: desc})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

func childText(el *etree.Element, tag string) string {
	if c := el.SelectElement(tag); c != nil {
		return c.Text()
	}
	return ""
}

func writeSQL(w io.Writer, activities []activity) error {
	var b strings.Builder
	b.WriteString("-- Catálogo CAT-019: actividades económicas\n")
	b.WriteString("-- Generado por cmd/seed_catalogs\n\n")
	b.WriteString("INSERT INTO economic_activities (code, description) VALUES\n")
	for i, a := range activities {
		sep := ","
		if i == len(activities)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "  ('%s', '%s')%s\n", escapeSQL(a.Code), escapeSQL(a.Description), sep)
	}
	b.WriteString("ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description;\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
