package main

import "github.com/sethvargo/go-envconfig"

// envLookuper is swapped in tests.
var envLookuper = envconfig.OsLookuper
