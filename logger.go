// Copyright 2025 icmping Author. All Rights Reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//      http://www.apache.org/licenses/LICENSE-2.0
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package icmping

import (
	"os"

	"github.com/op/go-logging"
)

const module = "icmping"

var (
	log          = logging.MustGetLogger(module)
	levelBackend logging.LeveledBackend

	pingDebug = os.Getenv("PING_DEBUG") == "T"
	pingTrace = os.Getenv("PING_TRACE") == "T"
)

func init() {
	format := logging.MustStringFormatter(
		"%{time:2006-01-02 15:04:05.000} [%{level:.4s}] - %{message}",
	)

	backend := logging.NewLogBackend(os.Stderr, "", 0)
	levelBackend = logging.AddModuleLevel(logging.NewBackendFormatter(backend, format))
	levelBackend.SetLevel(logging.WARNING, module)
	log.SetBackend(levelBackend)

	if pingDebug || pingTrace {
		SetLogLevelDebug()
	}
}

// GetLog returns the package logger.
func GetLog() *logging.Logger {
	return log
}

// SetLogLevelDebug lowers the package log level to DEBUG.
func SetLogLevelDebug() {
	levelBackend.SetLevel(logging.DEBUG, module)
}
