package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
)

// Walks a running server through a turn, a branch and sibling navigation.
//
//	go run scripts/smoke_chat_api.go [base-url]
var baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, body interface{}) (*http.Response, map[string]interface{}, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	// Generations can be slow on a cold local model.
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	var parsed map[string]interface{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parsed)
	}
	return resp, parsed, nil
}

func step(title, method, url string, body interface{}) map[string]interface{} {
	color.Yellow("\n%s", title)
	resp, parsed, err := sendRequest(method, url, body)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 400 {
		color.Red("Status: %s", resp.Status)
		prettyPrint(parsed)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	return parsed
}

func field(m map[string]interface{}, path ...string) string {
	var cur interface{} = m
	for _, key := range path {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return ""
		}
		cur = obj[key]
	}
	s, _ := cur.(string)
	return s
}

func main() {
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}
	color.Cyan("🚀 Starting chat API smoke test against %s\n", baseURL)

	step("1. Health", "GET", "/system/v1/health", nil)

	first := step("2. Start a chat", "POST", "/chat/v1/messages", map[string]interface{}{
		"content":        "What is the capital of France?",
		"search_enabled": false,
	})
	chatId := field(first, "data", "chat", "id")
	replyId := field(first, "data", "reply", "id")
	fmt.Printf("Chat: %s\nReply: %s\n", chatId, field(first, "data", "reply", "content"))
	if chatId == "" {
		color.Red("No chat id returned")
		os.Exit(1)
	}

	step("3. Continue the chat", "POST", "/chat/v1/messages", map[string]interface{}{
		"chat_id":        chatId,
		"content":        "And its population?",
		"search_enabled": false,
	})

	step("4. Open a branch from the first reply", "POST", "/chat/v1/chats/"+chatId+"/branch", map[string]interface{}{
		"message_id": replyId,
		"reply_to":   "capital of France",
	})

	branch := step("5. Send into the branch", "POST", "/chat/v1/messages", map[string]interface{}{
		"chat_id":        chatId,
		"content":        "Tell me about its history instead",
		"from_branch":    true,
		"search_enabled": false,
	})
	branchId := field(branch, "data", "chat", "id")
	fmt.Printf("Branch: %s (parent %s)\n", branchId, field(branch, "data", "chat", "parentId"))

	branches := step("6. List branches of the chat", "GET", "/chat/v1/chats/"+chatId+"/branches", nil)
	prettyPrint(branches["data"])

	graph := step("7. Graph of the chat", "GET", "/chat/v1/chats/"+chatId+"/graph", nil)
	data, _ := graph["data"].(map[string]interface{})
	if nodes, ok := data["nodes"].([]interface{}); ok {
		fmt.Printf("Nodes: %d\n", len(nodes))
	}

	step("8. Delete the chat and its branches", "DELETE", "/chat/v1/chats/"+chatId, nil)

	color.Cyan("\n✅ Smoke test finished")
}
