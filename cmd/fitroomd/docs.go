package main

// General API documentation for swaggo. Regenerate the served document in
// internal/httpapi/apidocs with `swag init`.
//
// @title           fitroom API
// @version         1.0
// @description     Backend-adaptive virtual try-on generation service.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
