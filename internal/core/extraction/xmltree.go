package extraction

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// element é uma árvore genérica de XML. Os nomes são comparados pelo nome local,
// então documentos com ou sem namespace da SEFAZ são tratados da mesma forma.
type element struct {
	XMLName  xml.Name
	Content  string    `xml:",chardata"`
	Children []element `xml:",any"`
}

func parseTree(r io.Reader) (*element, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	var root element
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("XML malformado: %w", err)
	}
	return &root, nil
}

// charsetReader aceita XMLs declarados em ISO-8859-1 e outras codificações IANA.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("codificação %q não suportada: %w", label, err)
	}
	if enc == nil {
		return input, nil
	}
	return enc.NewDecoder().Reader(input), nil
}

func (e *element) text() string {
	return strings.TrimSpace(e.Content)
}

func (e *element) child(name string) *element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return &e.Children[i]
		}
	}
	return nil
}

// walk visita os descendentes em ordem de documento até fn devolver false.
func (e *element) walk(fn func(*element) bool) bool {
	for i := range e.Children {
		c := &e.Children[i]
		if !fn(c) || !c.walk(fn) {
			return false
		}
	}
	return true
}

// findAll devolve os elementos de ".//path[0]/path[1]/..." em ordem de documento.
func (e *element) findAll(path ...string) []*element {
	if len(path) == 0 {
		return nil
	}
	var out []*element
	e.walk(func(d *element) bool {
		if d.XMLName.Local == path[0] {
			out = append(out, d.descend(path[1:])...)
		}
		return true
	})
	return out
}

func (e *element) descend(path []string) []*element {
	if len(path) == 0 {
		return []*element{e}
	}
	var out []*element
	for i := range e.Children {
		if e.Children[i].XMLName.Local == path[0] {
			out = append(out, e.Children[i].descend(path[1:])...)
		}
	}
	return out
}

// find devolve o primeiro elemento de ".//path[0]/...", ou nil.
func (e *element) find(path ...string) *element {
	if found := e.findAll(path...); len(found) > 0 {
		return found[0]
	}
	return nil
}

// findDeep devolve o primeiro descendente chamado name, em qualquer profundidade.
func (e *element) findDeep(name string) *element {
	var hit *element
	e.walk(func(d *element) bool {
		if d.XMLName.Local == name {
			hit = d
			return false
		}
		return true
	})
	return hit
}
