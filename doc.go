package locator

// This package extracts GPS and camera metadata from images, converts degree/minute/second GPS values in to decimal coordinates, assembles ordered per-image metadata records and writes map documents for one or more image locations. Common operations include: Locating a single image, gathering a batch of images and rendering maps.
