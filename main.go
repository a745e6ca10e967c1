package main

import "github.com/hanzlahyasir/price-alert-notifier-telegram-bot/cmd"

func main() {
	cmd.Execute()
}
