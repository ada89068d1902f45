// Command previewtail follows a conversation's event stream from a running
// previewd and renders the generation progress in the terminal. When the
// stream completes it fetches the aggregated state and pretty-prints the
// generated component code.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/casualjim/preview/events"
	"github.com/casualjim/preview/pkg/slogx"
	"github.com/casualjim/preview/pkg/stdx"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"
	"github.com/k0kubun/pp/v3"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

var glam = stdx.Must1(glamour.NewTermRenderer(glamour.WithAutoStyle()))

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Stamp}
	log := zerolog.New(output).With().Timestamp().Logger()
	slog.SetDefault(slog.New(
		zeroslog.NewHandler(log, &zeroslog.HandlerOptions{Level: slog.LevelWarn}),
	))
}

func main() {
	if err := mainE(context.Background()); err != nil {
		slog.Error("previewtail failed", slogx.Error(err))
		os.Exit(1)
	}
}

func mainE(ctx context.Context) error {
	server := flag.String("server", envOr("PREVIEW_SERVER", "http://localhost:8999"), "previewd base URL")
	conversation := flag.String("conversation", "", "conversation id to follow")
	debug := flag.Bool("debug", false, "dump raw events as they arrive")
	flag.Parse()

	if *conversation == "" {
		flag.Usage()
		return errors.New("conversation id is required")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	base := strings.TrimSuffix(*server, "/")
	done, err := follow(ctx, base, *conversation, *debug)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	if !done {
		// Stream ended without a terminal event, nothing more to show.
		return nil
	}

	return printFinalState(ctx, base, *conversation)
}

// follow attaches to the SSE stream and renders one line per event. It
// reports whether the stream reached a terminal event.
func follow(ctx context.Context, base, conversation string, debug bool) (bool, error) {
	url := fmt.Sprintf("%s/conversations/%s/events", base, conversation)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("attaching stream: previewd replied %s", resp.Status)
	}

	fmt.Printf("watching %s\n", color.CyanString(conversation))

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			ev, err := events.Unmarshal([]byte(data))
			data = ""
			if err != nil {
				slog.Warn("skipping malformed event", slogx.Error(err))
				continue
			}
			if debug {
				pp.Println(ev)
			}
			if render(ev) {
				return true, nil
			}
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return false, err
	}
	return false, ctx.Err()
}

// render prints one progress line and reports whether the event was
// terminal.
func render(ev events.Event) bool {
	switch e := ev.(type) {
	case events.Component:
		fmt.Printf("%s %-20s %s\n", color.CyanString("%-9s", "component"), e.Name, progressBar(e.Progress))
	case events.Layout:
		fmt.Printf("%s %-20s %s\n", color.MagentaString("%-9s", "layout"), "", progressBar(e.Progress))
	case events.Types:
		fmt.Printf("%s %-20s %s\n", color.YellowString("%-9s", "types"), "", progressBar(e.Progress))
	case events.Complete:
		fmt.Println(color.GreenString("complete"))
		return true
	case events.Error:
		fmt.Printf("%s %s\n", color.RedString("error"), e.Message)
		return true
	}
	return false
}

func progressBar(progress int) string {
	filled := progress / 10
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat(" ", 10-filled), progress)
}

// printFinalState fetches the aggregated snapshot and renders the generated
// code as fenced markdown.
func printFinalState(ctx context.Context, base, conversation string) error {
	url := fmt.Sprintf("%s/conversations/%s/state", base, conversation)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching state: previewd replied %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if layout := gjson.GetBytes(body, "layout").String(); layout != "" {
		fmt.Printf("\n%s\n", color.MagentaString("layout"))
		out, _ := glam.Render("```jsx\n" + layout + "\n```")
		fmt.Println(out)
	}

	for _, c := range gjson.GetBytes(body, "components").Array() {
		fmt.Printf("%s\n", color.CyanString(c.Get("name").String()))
		out, _ := glam.Render("```jsx\n" + c.Get("code").String() + "\n```")
		fmt.Println(out)
	}

	return nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
