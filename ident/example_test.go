package ident_test

import (
	"fmt"

	"github.com/jonwraymond/filmjoin/ident"
)

func ExampleExtract() {
	id, err := ident.Extract("https://ghibliapi.vercel.app/films/2baf70d1-42bb-4437-b551-e5fed5a87abe")
	fmt.Println(id, err)
	// Output: 2baf70d1-42bb-4437-b551-e5fed5a87abe <nil>
}
