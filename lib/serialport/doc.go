// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package serialport opens the device transport and pumps its bytes
// into a line framer.
//
// A device path (/dev/ttyUSB0) is opened non-blocking and configured
// raw 8N1 with no parity and no hardware or software flow control at
// the requested baud rate. A tcp://host:port address dials a serial
// bridge instead, which is also how tests and remote rigs attach.
package serialport
