// Package core provides the business logic of the inventory service.
//
// It holds everything that decides what a valid product is and how it moves
// through its lifecycle, independent of HTTP, storage engines or object
// stores. Web handlers, the bulk importer and tests all drive the same
// [Service].
//
// # Products
//
// A [Product] is created once, updated any number of times and deleted.
// The write path is always the same:
//
//  1. Decode the request body into a [ProductInput] ([DecodeProductInput]).
//  2. [Validate] it; the first broken rule is returned as a [ValidationError].
//  3. Check the barcode against the uniqueness index ([ConflictError]).
//  4. Normalize enumerated fields and apply defaults.
//  5. Issue one conditional write to the [Store].
//
// Stores guard barcode uniqueness again at write time, so the pre-check in
// step 3 only produces the friendlier error.
//
// # Normalization
//
// [NormalizeCategory], [NormalizeUnit], [NormalizeAvailability] and
// [CleanPriceString] map loose input onto the closed vocabularies. They are
// total functions and never fail.
//
// # Collaborators
//
// The service depends on small interfaces only: [Store] for records,
// [BlobStore] for image objects, [URLCache] for signed URLs and
// [EventPublisher] for change events. Blob deletions go through
// [BlobReleaser], which logs failures and never returns them.
//
// # Errors
//
// Domain errors ([ValidationError], [ConflictError], [NotFoundError],
// [CollaboratorError]) carry user-facing messages. [MapError] turns any error
// into a [UserMessage] with a support code.
package core
