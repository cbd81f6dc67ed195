package page

// RobotsTxt is served at /robots.txt and written to the site root.
const RobotsTxt = "User-agent: *\nAllow: /"
