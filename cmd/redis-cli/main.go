// Command redis-cli is a small interactive client for a running
// redislite server: an input loop built on github.com/c-bata/go-prompt,
// wired to the same RESP wire format the server speaks.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	prompt "github.com/c-bata/go-prompt"
)

var connection *Connection

func main() {
	host := flag.String("h", "127.0.0.1", "Server hostname")
	port := flag.Int("p", 6379, "Server port")
	flag.Parse()

	connection = NewConnection(*host, *port)
	if err := connection.Connect(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer connection.Close()

	restArgs := flag.Args()
	if len(restArgs) > 0 {
		execPrint(strings.Join(restArgs, " "))
		return
	}

	p := prompt.New(
		executor,
		completer,
		prompt.OptionPrefix(connection.CliPrefix()+"> "),
		prompt.OptionLivePrefix(func() (string, bool) {
			return connection.CliPrefix() + "> ", true
		}),
		prompt.OptionTitle("redis-cli"),
	)
	p.Run()
}

func executor(input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}
	if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
		connection.Close()
		os.Exit(0)
	}
	execPrint(input)
}

func execPrint(input string) {
	tv, err := connection.Exec(input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	PrintVal(os.Stdout, tv)
}

var knownCommands = []string{"PING", "ECHO", "SET", "GET", "INFO", "REPLCONF", "PSYNC"}

func completer(d prompt.Document) []prompt.Suggest {
	suggestions := make([]prompt.Suggest, 0, len(knownCommands))
	for _, c := range knownCommands {
		suggestions = append(suggestions, prompt.Suggest{Text: c})
	}
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}
