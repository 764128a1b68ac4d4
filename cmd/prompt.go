// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// stdin is shared by every interactive question so buffered input isn't lost
// between them.
var stdin = bufio.NewReader(os.Stdin)

// errQuit is returned when the user leaves a prompt.
var errQuit = errors.New("quit")

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

// ask prints the question and returns the trimmed answer.
func ask(in *bufio.Reader, out io.Writer, question string) (string, error) {
	fmt.Fprintf(out, "%s ", question)

	line, err := in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", errQuit
		}

		return "", err
	}

	return strings.TrimSpace(line), nil
}

// choose lists the options and returns the index picked. "q" or the end of
// the input returns errQuit.
func choose(in *bufio.Reader, out io.Writer, title string, items []string) (int, error) {
	if len(items) == 0 {
		return 0, fmt.Errorf("%s: nothing to choose from", title)
	}

	fmt.Fprintln(out, title)

	for i, item := range items {
		fmt.Fprintf(out, "%d. %s\n", i, item)
	}

	for {
		answer, err := ask(in, out, ">")
		if err != nil {
			return 0, err
		}

		if answer == "q" {
			return 0, errQuit
		}

		if n, err := strconv.Atoi(answer); err == nil && n >= 0 && n < len(items) {
			return n, nil
		}

		fmt.Fprintf(out, "Enter a number between 0 and %d, or q.\n", len(items)-1)
	}
}
