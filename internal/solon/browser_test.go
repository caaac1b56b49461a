// internal/solon/browser_test.go
package solon

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// boolPage answers Evaluate calls from a queue of booleans.
type boolPage struct {
	responses []bool
	scripts   []string
}

func (f *boolPage) Evaluate(_ context.Context, script string, out interface{}) error {
	f.scripts = append(f.scripts, script)
	v := false
	if len(f.responses) > 0 {
		v = f.responses[0]
		f.responses = f.responses[1:]
	}
	*(out.(*bool)) = v
	return nil
}

func TestAwaitSelectPopulatedPollsUntilOptionsArrive(t *testing.T) {
	// The court list lands in a late ADF partial response: the select is
	// attached and empty for the first polls, then fills.
	page := &boolPage{responses: []bool{false, false, true}}

	err := awaitSelectPopulated(context.Background(), page, `#courtOfficeOC\:\:content`, 5*time.Second)
	require.NoError(t, err)
	assert.Len(t, page.scripts, 3)
	assert.True(t, strings.Contains(page.scripts[0], "options.length > 1"))
}

func TestAwaitSelectPopulatedTimesOut(t *testing.T) {
	page := &boolPage{}

	err := awaitSelectPopulated(context.Background(), page, `#courtOfficeOC\:\:content`, 300*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not populated")
}

func TestAwaitSelectPopulatedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := &boolPage{}

	err := awaitSelectPopulated(ctx, page, `#courtOfficeOC\:\:content`, 5*time.Second)
	require.ErrorIs(t, err, context.Canceled)
}
