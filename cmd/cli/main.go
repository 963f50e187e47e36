package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Username to watch (without @): ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(strings.TrimPrefix(username, "@"))
	if username == "" {
		fmt.Println("Username is required.")
		return
	}

	fmt.Print("Watcher id: ")
	watcher, _ := reader.ReadString('\n')
	watcher = strings.TrimSpace(watcher)
	if watcher == "" {
		fmt.Println("Watcher is required.")
		return
	}

	body, _ := json.Marshal(map[string]string{"username": username, "watcher": watcher})
	resp, err := http.Post(api+"/usernames", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Println("Error contacting API:", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		fmt.Printf("Watching @%s for %s. Check GET %s/logs?watcher=%s\n", username, watcher, api, watcher)
	} else {
		fmt.Println("API returned status:", resp.Status)
	}
}
