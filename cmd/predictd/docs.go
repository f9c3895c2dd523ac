package main

// General API documentation for swaggo. Run `swag init -g cmd/predictd/docs.go` to regenerate docs/.
//
// @title           predictd API
// @version         1.0
// @description     HTTP API for text prediction with a GGUF model served through llama.cpp.
//
// @contact.name   predictd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
