package config

import "os"

// env is an indirection over os.Getenv so Snapshot refresh stays testable.
var env = os.Getenv

// realEnv restores the default lookup in tests.
var realEnv = os.Getenv
