package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           vtond API
// @version         1.0
// @description     Virtual try-on: composite a garment photo onto a person photo.
//
// @contact.name   vtond maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
