// Moodcheck - inspect the mood keyword rules from a terminal, or
// follow a running server's sync feed and print mood changes.
//
// Usage:
//
//	moodcheck "some text"          # classify arguments
//	echo "some text" | moodcheck   # classify stdin lines
//	moodcheck -follow ws://localhost:8080/ws/sync
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bmolabs/companion/pkg/hub"
	"github.com/bmolabs/companion/pkg/mood"
)

func main() {
	follow := flag.String("follow", "", "Sync feed URL to follow for mood changes")
	flag.Parse()

	if *follow != "" {
		followFeed(*follow)
		return
	}

	rules := mood.NewDefaultRules()

	if flag.NArg() > 0 {
		text := strings.Join(flag.Args(), " ")
		fmt.Println(rules.Infer(text))
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fmt.Printf("%s\t%s\n", rules.Infer(line), line)
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("read stdin: %v", err)
	}
}

// followFeed prints mood and state events from a running server until
// interrupted.
func followFeed(url string) {
	sub, err := hub.NewSubscriber(url)
	if err != nil {
		log.Fatalf("subscriber: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = sub.Listen(ctx, func(ev hub.Event) {
		switch ev.Kind {
		case hub.EventMood:
			fmt.Printf("mood\t%s\t%s\n", ev.Mood, ev.Face)
		case hub.EventState:
			fmt.Printf("state\t%s\n", ev.State)
		}
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalf("feed: %v", err)
	}
}
