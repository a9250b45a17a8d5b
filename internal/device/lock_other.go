// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !unix

package device

import "os"

// Advisory locking is unix-only; the in-process lease still applies.
func lockFile(*os.File) error   { return nil }
func unlockFile(*os.File) error { return nil }
