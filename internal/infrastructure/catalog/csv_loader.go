// Package catalog carga el catálogo de medicamentos desde un CSV exportado
// (planilla del proveedor o del sistema anterior).
//
// Columnas: id, name, generic_name, category_id, manufacturer, suggested_price,
// requires_prescription, unit, units_per_package, packages_per_box, description.
// Las filas sin id o nombre, o con números inválidos, se omiten.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Farmacia-api/internal/domain/entity"
	"github.com/jhoicas/Farmacia-api/pkg/logger"
)

const minColumns = 7

// Sink destino de los medicamentos leídos (memoria o PostgreSQL).
type Sink interface {
	UpsertDrug(ctx context.Context, d entity.Drug) error
}

// Result medicamentos válidos y cantidad de filas omitidas.
type Result struct {
	Drugs   []entity.Drug
	Skipped int
}

// Read decodifica el CSV. charset acepta utf-8 (por defecto) o iso-8859-1 / latin1.
func Read(r io.Reader, charset string, now time.Time) (Result, error) {
	src, err := decoder(r, charset)
	if err != nil {
		return Result{}, err
	}
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	// Cabecera
	if _, err := reader.Read(); err != nil {
		return Result{}, fmt.Errorf("leer cabecera del catálogo: %w", err)
	}

	var res Result
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Skipped++
			continue
		}
		d, ok := parseRow(record, now)
		if !ok {
			res.Skipped++
			continue
		}
		res.Drugs = append(res.Drugs, d)
	}
	return res, nil
}

// Load lee el archivo y envía cada medicamento al sink. Devuelve cuántos se guardaron.
func Load(ctx context.Context, path, charset string, sink Sink, log *logger.Logger) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("abrir catálogo %s: %w", path, err)
	}
	defer f.Close()

	res, err := Read(f, charset, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	saved := 0
	for _, d := range res.Drugs {
		if err := sink.UpsertDrug(ctx, d); err != nil {
			log.Warn().Err(err).Str("drug_id", d.ID).Msg("no se pudo guardar el medicamento")
			continue
		}
		saved++
	}
	log.Info().Str("file", path).Int("saved", saved).Int("skipped", res.Skipped).Msg("catálogo cargado")
	return saved, nil
}

func decoder(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "iso-8859-1", "iso8859-1", "latin1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("charset de catálogo no soportado %q", charset)
	}
}

func parseRow(record []string, now time.Time) (entity.Drug, bool) {
	if len(record) < minColumns {
		return entity.Drug{}, false
	}
	col := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}
	d := entity.Drug{
		Name:         col(1),
		GenericName:  col(2),
		CategoryID:   col(3),
		Manufacturer: col(4),
	}
	d.ID = col(0)
	if d.ID == "" || d.Name == "" {
		return entity.Drug{}, false
	}
	if s := col(5); s != "" {
		price, err := decimal.NewFromString(s)
		if err != nil || price.IsNegative() {
			return entity.Drug{}, false
		}
		d.SuggestedPrice = price
	}
	if s := col(6); s != "" {
		rx, err := strconv.ParseBool(s)
		if err != nil {
			return entity.Drug{}, false
		}
		d.RequiresPrescription = rx
	}
	pack := entity.PackagingInfo{Unit: col(7), UnitsPerPackage: 1, PackagesPerBox: 1, Description: col(10)}
	if pack.Unit == "" {
		pack.Unit = "unidad"
	}
	for i, dst := range []*int{&pack.UnitsPerPackage, &pack.PackagesPerBox} {
		s := col(8 + i)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return entity.Drug{}, false
		}
		*dst = n
	}
	d.DefaultPackaging = pack
	d.Touch(now)
	return d, true
}
