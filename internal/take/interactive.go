package take

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"reelrun/internal/frame"
	"reelrun/internal/params"
)

// confirmSend prints the unhydrated request's method, URI, and protocol as
// a three-column table and waits for ENTER before the caller proceeds, the
// cosmetic interactive-mode checkpoint described for the take runner. It is
// a no-op when interactive mode is off, or when stdin isn't a terminal (a
// piped/non-interactive run has nothing to wait on).
func confirmSend(p params.Params, fr *frame.Frame) error {
	if !p.Interactive {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}

	fmt.Printf("%-8s | %-6s | %s\n", "protocol", "method", "uri")
	fmt.Println("---------+--------+----------------------------------------")
	method, uri := "", fr.Request.URI
	if idx := strings.IndexByte(uri, ' '); idx != -1 {
		method, uri = uri[:idx], uri[idx+1:]
	}
	fmt.Printf("%-8s | %-6s | %s\n", fr.Protocol, method, uri)
	fmt.Print("press ENTER to send> ")

	reader := bufio.NewReader(os.Stdin)
	_, err := reader.ReadString('\n')
	return err
}
