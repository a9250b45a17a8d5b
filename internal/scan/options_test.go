// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	o := Options{FrontendType: "t2", Country: " de ", Adapter: 1, Frontend: 0, OutputFormat: "5"}
	assert.Equal(t, []string{"-f", "t2", "-c", "DE", "-a", "/dev/dvb/adapter1/frontend0", "-5"}, o.Args())

	o = Defaults()
	assert.Equal(t, []string{"-f", "t", "-a", "/dev/dvb/adapter0/frontend0", "-X"}, o.Args())
}

func TestValidate(t *testing.T) {
	require.NoError(t, Defaults().Validate())

	o := Defaults()
	o.FrontendType = "s"
	require.ErrorIs(t, o.Validate(), ErrFrontendType)

	o = Defaults()
	o.OutputFormat = "Q"
	require.ErrorIs(t, o.Validate(), ErrOutputFormat)

	o = Defaults()
	o.Adapter = -1
	require.ErrorIs(t, o.Validate(), ErrDeviceIndex)
}
