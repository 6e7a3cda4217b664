package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/brakit/internal/registry"
	"github.com/scan-io-git/brakit/plugins/builtin"
)

func TestWriteRules(t *testing.T) {
	reg, err := registry.Resolve(builtin.All()...)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteRules(&buf, reg))

	out := buf.String()
	assert.Contains(t, out, "nextjs")
	assert.Contains(t, out, "prisma:raw-query")
	assert.Contains(t, out, "core:unguarded-raw-query")
	assert.Contains(t, out, "requires nextjs:missing-session-check, prisma:raw-query")
	assert.NotContains(t, out, "Warnings")
}
