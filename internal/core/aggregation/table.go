package aggregation

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/schollz/closestmatch"
	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TableRole define como uma planilha entra no volume líquido.
type TableRole string

const (
	RoleBilled   TableRole = "FATURADA"
	RoleCanceled TableRole = "CANCELADA"
	RoleReturned TableRole = "DEVOLUCAO"
	RoleIgnored  TableRole = "IGNORADA"
)

// Table é uma planilha com cabeçalho nomeado.
type Table struct {
	Name   string     `json:"name"`
	Role   TableRole  `json:"role"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Column devolve o índice da coluna com o nome exato (sem espaços nas pontas), ou -1.
func (t Table) Column(name string) int {
	name = strings.TrimSpace(name)
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell devolve a célula ou "" quando a linha é mais curta que o cabeçalho.
func (t Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// SuggestColumn devolve o cabeçalho mais parecido com name, para mensagens de erro.
func (t Table) SuggestColumn(name string) string {
	if len(t.Header) == 0 {
		return ""
	}
	byNorm := make(map[string]string, len(t.Header))
	keys := make([]string, 0, len(t.Header))
	for _, h := range t.Header {
		n := normalizeText(h)
		if n == "" {
			continue
		}
		if _, ok := byNorm[n]; !ok {
			keys = append(keys, n)
		}
		byNorm[n] = h
	}
	if len(keys) == 0 {
		return ""
	}
	cm := closestmatch.New(keys, []int{2, 3, 4})
	return byNorm[cm.Closest(normalizeText(name))]
}

// ClassifyTable aplica a convenção de nomes de arquivo do faturamento.
func ClassifyTable(filename string) TableRole {
	name := strings.ToLower(filepath.Base(filename))
	switch {
	case strings.Contains(name, "faturada") && strings.Contains(name, "complementar"):
		return RoleBilled
	case strings.Contains(name, "cancelad"), strings.Contains(name, "denegad"):
		return RoleCanceled
	case strings.Contains(name, "devolu"):
		return RoleReturned
	default:
		return RoleIgnored
	}
}

// ReadTable carrega .xlsx, .xls ou .csv (separado por ";") usando a primeira linha
// não vazia como cabeçalho. O papel é deduzido do nome do arquivo.
func ReadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("erro ao ler planilha %s: %w", filepath.Base(path), err)
	}

	var rows [][]string
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xls":
		rows, err = loadWorkbook(data)
	case ".csv":
		rows, err = loadCSV(data)
	default:
		return Table{}, fmt.Errorf("extensão de planilha não suportada: %s", ext)
	}
	if err != nil {
		return Table{}, fmt.Errorf("erro ao ler planilha %s: %w", filepath.Base(path), err)
	}
	return newTable(filepath.Base(path), rows), nil
}

func newTable(name string, rows [][]string) Table {
	t := Table{Name: name, Role: ClassifyTable(name)}
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		t.Header = make([]string, len(row))
		for j, h := range row {
			t.Header[j] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		}
		for _, r := range rows[i+1:] {
			if !isBlank(r) {
				t.Rows = append(t.Rows, r)
			}
		}
		break
	}
	return t
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// loadWorkbook tenta xlsx e depois xls, lendo a primeira aba.
func loadWorkbook(data []byte) ([][]string, error) {
	if f, err := excelize.OpenReader(bytes.NewReader(data)); err == nil {
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("a pasta de trabalho não contém planilhas")
		}
		return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	}

	workbook, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("formato de planilha não suportado: %w", err)
	}
	if len(workbook.GetSheets()) == 0 {
		return nil, fmt.Errorf("o arquivo .xls não contém planilhas")
	}
	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("erro ao obter planilha do arquivo .xls: %w", err)
	}
	var rows [][]string
	for _, row := range sheet.GetRows() {
		var out []string
		for _, cell := range row.GetCols() {
			out = append(out, cell.GetString())
		}
		rows = append(rows, out)
	}
	return rows, nil
}

// loadCSV aceita UTF-8 e, quando o conteúdo não é UTF-8 válido, ISO-8859-1.
func loadCSV(data []byte) ([][]string, error) {
	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		src = charmap.ISO8859_1.NewDecoder().Reader(src)
	}
	r := csv.NewReader(src)
	r.Comma = ';'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

var nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9 ]+`)
var whitespace = regexp.MustCompile(`\s+`)

// normalizeText remove acentos e pontuação e passa para maiúsculas.
func normalizeText(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}))
	out, _, _ := transform.String(t, s)
	out = strings.ToUpper(out)
	out = nonAlphanumeric.ReplaceAllString(out, " ")
	out = whitespace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
