package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewSplitsOutputByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	log := New(&out, &errOut, logrus.InfoLevel)

	log.Info("Restoring bucket in.c-main")
	log.WithField("component", "orchestrator").Warn("Orchestrations was not restored")
	log.Debug("hidden")

	assert.Equal(t, "Restoring bucket in.c-main\n", out.String())
	assert.Equal(t, "Orchestrations was not restored\n", errOut.String())
}
