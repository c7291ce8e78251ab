package importer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/docedit/internal/doctree"
)

// CSVImporter converts CSV files into a table. The first record becomes a
// bold header row.
type CSVImporter struct{}

func (p *CSVImporter) Import(r io.Reader, filename string) ([]doctree.BodyChild, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	tbl := &doctree.Table{}
	for i, record := range records {
		var props *doctree.RunProperties
		if i == 0 {
			props = &doctree.RunProperties{Bold: doctree.Bool(true)}
		}
		row := &doctree.TableRow{}
		for _, field := range record {
			row.Cells = append(row.Cells, &doctree.TableCell{
				Children: []doctree.BodyChild{doctree.NewParagraph(field, props)},
			})
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return []doctree.BodyChild{tbl}, nil
}
