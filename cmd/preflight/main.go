// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	botToken := strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	ownerChat := strings.TrimSpace(os.Getenv("OWNER_CHAT_ID"))
	userAPI := strings.TrimSpace(os.Getenv("USERAPI_URL"))
	userAPIToken := strings.TrimSpace(os.Getenv("USERAPI_TOKEN"))
	addr := strings.TrimSpace(os.Getenv("ADDR"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	monitorCfg := strings.TrimSpace(os.Getenv("MONITOR_CONFIG"))

	if botToken == "" {
		fail("BOT_TOKEN is empty (notifications will fail, monitor won't start).")
	}
	if ownerChat == "" {
		fail("OWNER_CHAT_ID is empty (nowhere to send notifications).")
	}
	if userAPI == "" || userAPIToken == "" {
		fail("USERAPI_URL/USERAPI_TOKEN are empty (username checks and claims need the user-session gateway).")
	}

	if addr == "" {
		warn("ADDR is empty; default in your app may be used.")
	} else {
		ok("ADDR=" + addr)
	}

	if db == "" {
		warn("DATABASE_URL empty — services will use in-memory stores; check logs vanish on restart.")
	} else {
		ok("DATABASE_URL present")
	}

	if monitorCfg == "" {
		warn("MONITOR_CONFIG empty — monitor runs in watch-list mode against the store.")
	} else if _, err := os.Stat(monitorCfg); err != nil {
		fail("MONITOR_CONFIG points at an unreadable file: " + err.Error())
	} else {
		ok("MONITOR_CONFIG=" + monitorCfg)
	}

	ok("preflight passed")
}
