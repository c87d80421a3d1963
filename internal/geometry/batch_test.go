package geometry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const batchHeader = "operation,kind_a,dimension_a,parameters_a,kind_b,dimension_b,parameters_b,calculator_model\n"

func TestParseBatchCSV(t *testing.T) {
	body := batchHeader +
		"distance,point,3,1;2;3,point,3,4;5;6,fx-test\n" +
		"area,circle,2,0;0;5,,,,\n"

	requests, err := ParseBatchCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, requests, 2)

	first := requests[0]
	assert.Equal(t, OpDistance, first.Operation)
	assert.Equal(t, KindPoint, first.ShapeA.Kind)
	assert.Equal(t, []float64{1, 2, 3}, first.ShapeA.Parameters)
	require.NotNil(t, first.ShapeB)
	assert.Equal(t, []float64{4, 5, 6}, first.ShapeB.Parameters)
	assert.Equal(t, "fx-test", first.CalculatorModel)

	second := requests[1]
	assert.Equal(t, OpArea, second.Operation)
	assert.Nil(t, second.ShapeB)
	assert.Empty(t, second.CalculatorModel)
}

func TestParseBatchCSVRejectsBadHeader(t *testing.T) {
	body := "op,kind_a,dimension_a,parameters_a,kind_b,dimension_b,parameters_b,calculator_model\n"

	_, err := ParseBatchCSV(strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column 1")
}

func TestParseBatchCSVRejectsShortHeader(t *testing.T) {
	_, err := ParseBatchCSV(strings.NewReader("operation,kind_a\n"))
	assert.Error(t, err)
}

func TestParseBatchCSVRejectsBadNumbers(t *testing.T) {
	body := batchHeader + "distance,point,three,1;2;3,point,3,4;5;6,\n"

	_, err := ParseBatchCSV(strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")

	body = batchHeader + "distance,point,3,1;x;3,point,3,4;5;6,\n"
	_, err = ParseBatchCSV(strings.NewReader(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad parameter")
}

func TestParseBatchCSVEmptyBody(t *testing.T) {
	_, err := ParseBatchCSV(strings.NewReader(""))
	assert.Error(t, err)
}
