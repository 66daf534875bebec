package batch

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConsoleProgressCallback(t *testing.T) {
	var buf bytes.Buffer
	p := NewConsoleProgressCallback(&buf, "Processing: ").WithUpdateInterval(time.Nanosecond)

	p.OnStart(4)
	for i := 1; i <= 4; i++ {
		if i == 2 {
			p.OnError(i, errors.New("boom"))
		}
		p.OnProgress(i, 4)
	}
	p.OnComplete()

	out := buf.String()
	assert.Contains(t, out, "Processing: ")
	assert.Contains(t, out, "4/4")
	assert.Contains(t, out, "done in")
	assert.Contains(t, out, "1 errors")
}

func TestConsoleProgressCallbackDefaultsWriter(t *testing.T) {
	p := NewConsoleProgressCallback(nil, "")
	assert.NotNil(t, p.writer)
}

func TestNoOpProgressCallback(t *testing.T) {
	var p ProgressCallback = NoOpProgressCallback{}
	p.OnStart(1)
	p.OnProgress(1, 1)
	p.OnError(1, errors.New("ignored"))
	p.OnComplete()
}
