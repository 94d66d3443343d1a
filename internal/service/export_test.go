package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"geoponto/internal/model"
)

func TestExport(t *testing.T) {
	points := &memPoints{records: []*model.PointRecord{
		rec("b", "Maria", model.RecordTypeExit, at(14, 18, 0), model.RecordStatusWarning),
		rec("a", "João", model.RecordTypeEntry, at(14, 9, 0), model.RecordStatusValid),
		rec("z", "João", model.RecordTypeEntry, at(20, 9, 0), model.RecordStatusValid),
	}}
	svc := NewExportService(points, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), "company_123", at(14, 0, 0), at(15, 0, 0), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Registros"}, f.GetSheetList())
	rows, err := f.GetRows("Registros")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Data", rows[0][0])
	assert.Equal(t, "IP", rows[0][9])
	assert.Equal(t, []string{"14/10/2026", "09:00:00", "João", "Entrada", "Válido"}, rows[1][:5])
	assert.Equal(t, []string{"14/10/2026", "18:00:00", "Maria", "Saída", "Atenção"}, rows[2][:5])
}

func TestExportEmptyRange(t *testing.T) {
	svc := NewExportService(&memPoints{}, nil)
	var buf bytes.Buffer
	err := svc.Export(context.Background(), "company_123", at(14, 0, 0), at(14, 0, 0), &buf)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Zero(t, buf.Len())
}
