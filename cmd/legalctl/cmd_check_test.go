package main

import (
	"bytes"
	"testing"

	"legalcheck-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResultFormats(t *testing.T) {
	v := models.IntentResult{Intent: "해고 통보 방식 문의", LawDomain: "근로기준법", Keywords: []string{"해고"}}

	var js bytes.Buffer
	require.NoError(t, writeResult(&js, "json", v))
	assert.Contains(t, js.String(), `"law_domain": "근로기준법"`)

	var y bytes.Buffer
	require.NoError(t, writeResult(&y, "yaml", v))
	assert.Contains(t, y.String(), "intent: 해고 통보 방식 문의")
}

func TestRootRegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"schema", "create-user", "add-revision", "reindex", "failed-jobs", "retry-job", "index-worker", "check"} {
		assert.True(t, names[want], want)
	}
}
