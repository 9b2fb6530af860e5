package main

import "github.com/DelightGeorge/Ikeya-Backend/commands"

func main() {
	commands.Execute()
}
