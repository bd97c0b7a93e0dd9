package main

import "github.com/yeremiapane/restaurant-pos/commands"

func main() {
	commands.Execute()
}
