package main

import "github.com/ccccccarachen/content-collection-skill/internal/app"

func main() {
	app.Main()
}
