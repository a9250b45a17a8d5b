// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config provides configuration management for tunewatch.
//
// Precedence is ENV > file > defaults. The YAML file is parsed strictly and the
// merged result is validated before use.
package config
